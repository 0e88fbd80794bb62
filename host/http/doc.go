// Package http is the HTTP client scripts reach as the http module.
//
// http.session(limit) returns a Session whose get, head, post and request
// methods suspend the calling task while the request runs in the
// background. At most limit requests of one session are in flight at a
// time. A suspended call resolves to a Response:
//
//	s = http.session(10)
//	r = await s.get("http://127.0.0.1/")
//	print(r.status_code, r.headers["Content-Type"], len(r.text))
//
// Transport failures are returned to the awaiting script unchanged apart
// from a method and URL prefix.
package http
