// Package client is the request surface of an established engine session.
//
// Every call returns a response.Result, so automation code branches on one
// tagged outcome instead of status codes and raw bodies. Accepted responses
// are transparently followed until the long-running job behind them reports
// a final state.
package client
