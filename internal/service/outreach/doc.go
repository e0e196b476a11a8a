// Package outreach is the daily send orchestrator: it sizes the batch from
// the remaining quota, walks eligible companies in priority order, and runs
// the discover-verify-compose-send pipeline for each. A company's failure
// is recorded and the loop moves on; only an exhausted quota or a broken
// schedule store stops the run.
package outreach
