// Package schedule implements the daily send-quota tracker with warm-up.
//
// One schedule row exists per UTC calendar date. The limit for each new day
// grows by a fixed warm-up increment over the most recent schedule, ramping
// outbound volume gradually to build sender reputation. Quota integrity is
// load-bearing: store errors here propagate to the caller uncaught, and the
// sent counter is only ever advanced through an atomic conditional update in
// the repository.
package schedule
