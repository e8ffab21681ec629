// Package response turns heterogeneous transport and application errors into
// a small, predictable outcome set.
//
// Every call against the engine's REST API funnels through Normalize, which
// yields exactly one of four tagged outcomes: a single object, an ordered
// list, no payload, or a tagged error. The error taxonomy (Kind) is the
// complete failure surface of the bridge; automation scripts branch on it
// instead of inspecting status codes or stack traces.
//
// # Usage
//
//	res := response.Normalize(resp.StatusCode, body, nil)
//	if res.Err != nil {
//	    return res.Err
//	}
//	fmt.Println(res.Object["uid"])
package response
