// Package sender executes requests and persists their responses.
//
// Sender.Send renders a stored request, builds the outbound call, runs it
// and streams the response body to a file while updating the stored
// response record. Every path through Send, including cancellation through
// the caller's context, leaves the record closed.
package sender
