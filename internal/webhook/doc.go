// Package webhook ingests delivery-provider engagement callbacks. Provider
// payloads (SparkPost-style batches, Mailgun-style single events) are
// normalized into one internal event shape, then dispatched against the
// email store: opens and clicks stamp engagement, bounces additionally
// unverify the owning company's contact address. Each event in a batch is
// processed independently; one bad event never drops its siblings.
package webhook
