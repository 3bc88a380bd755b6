// Package tallyengine implements ranked-choice election tallying inside the
// governance context.
//
// The module counts closed elections with the single transferable vote:
// ballot normalization, Droop quota, fractional surplus transfers,
// eliminations, exclusion-group caps, and an append-only audit trail. A
// tally commits transactionally together with its outbox event; vote-flow
// graphs and quorum status are derived reads over the committed record.
// Business rules live in the domain and application layers; infrastructure
// stays behind ports and adapters.
package tallyengine
