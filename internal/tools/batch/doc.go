// Package batch runs lists of tool calls as sent by voice-agent webhooks.
//
// Each call is executed independently: a failing call produces an error
// entry for its tool_call_id and the remaining calls still run.
package batch
