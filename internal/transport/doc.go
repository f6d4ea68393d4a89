/*
Package transport performs a single HTTP exchange over net/http.

It knows nothing about tokens, encryption or envelopes; the client package
composes those around it. Transport is responsible for:

  - URL composition (JoinURL, BuildURL)
  - header layering (MergeHeaders)
  - JSON body encoding for methods that carry a body
  - cookie handling when a request asks for credentials
  - status-class branching and safe JSON decoding

Every failure is a *reqerr.RequestError:

  - no response (DNS, refused, reset):   NETWORK_ERROR, status 0
  - per-request timeout:                 NETWORK_ERROR, "Request timed out"
  - caller cancelled the context:        UNKNOWN_ERROR, "Request was cancelled"
  - body not decodable:                  INVALID_JSON with the HTTP status
  - any non-2xx:                         HTTP_ERROR with the filtered body

A 204 response decodes to {"response": [], "message": "No content found"}.

Transport is safe for concurrent use.
*/
package transport
