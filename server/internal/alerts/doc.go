// Package alerts evaluates threshold rules against the latest values each
// source pushes and notifies Slack, Teams or generic HTTP webhooks when a
// rule fires or resolves.
package alerts
