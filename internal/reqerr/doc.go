// Package reqerr defines RequestError, the single error type every request
// failure is reported as.
//
// A RequestError is built once and never mutated. Its kind is read through
// predicates rather than an enum:
//
//	var rerr *reqerr.RequestError
//	if errors.As(err, &rerr) && rerr.IsValidationError() {
//	    fields := rerr.ValidationErrors()
//	    ...
//	}
//
// Codes
//
//   - NETWORK_ERROR: no response was received (DNS, refused, timeout). Status 0.
//   - INVALID_JSON:  the body could not be decoded or decrypted.
//   - HTTP_ERROR:    the server answered with a non-2xx status.
//   - UNKNOWN_ERROR: cancellation, missing key material, anything else.
//
// When built with WithFilter, Data and Debug are stripped of sensitive keys.
// Debug always has absolute file paths reduced to their base name.
package reqerr
