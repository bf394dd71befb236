// Package domain models the COVID-19 observation dataset and its
// normalization to a canonical schema.
//
// # Data Source
//
// The dataset is the daily-report CSV corpus in the JHU CSSE / DataFlair
// style: one row per (country, province/state, observation date) carrying
// cumulative confirmed/death/recovered counts and, in some mirrors,
// latitude/longitude. The corpus is heterogeneous: mirrors disagree on
// column spellings, date formats, and which columns exist at all.
//
// # Column Aliases
//
// Known source spellings and their canonical names:
//
//	Province/State   → province_state
//	Country/Region   → country
//	ObservationDate  → date
//	Last Update      → last_update
//	Confirmed        → confirmed
//	Deaths           → deaths
//	Recovered        → recovered
//	Latitude         → lat
//	Longitude        → lon
//
// Already-canonical lowercase names pass through unchanged, so normalizing
// an already-normalized table is a no-op.
//
// # Lossy-Fill Policy
//
// Per-value coercion failures never raise. The fallbacks are deliberate data
// cleaning, and downstream aggregation depends on them producing defined
// totals:
//
//	counts (confirmed/deaths/recovered): missing or non-numeric → 0.
//	  A count column absent from a source file entirely is synthesized
//	  as all-zero.
//	dates (date/last_update): unparseable → the zero-time sentinel.
//	  Rows without a parsed date are excluded from date-keyed groupings
//	  but still count toward snapshot totals when no row has a date.
//	coordinates (lat/lon): unparseable → absent (nil), never 0, because
//	  (0, 0) is a real place in the Gulf of Guinea.
//
// Country names are trimmed and internal whitespace runs collapse to single
// spaces ("Korea,  South" → "Korea, South"). Province/state defaults to the
// empty string.
//
// # Date Formats
//
// Observation dates appear as "01/22/2020", "2020-02-01 23:43:02", and
// RFC 3339 depending on the mirror and vintage. Parsing is delegated to
// dateparse.ParseAny and the result is normalized to UTC.
package domain
