// Package client is the request pipeline of vormiaquery.
//
// A Client owns the configuration, the auth-token slot in a storage.Store,
// the payload cipher and a transport. Each call runs the same stages:
//
//  1. compose URL and headers; inject "Authorization: Bearer <token>" when
//     a token is stored and no Authorization header is set
//  2. when Spec.Encrypt is set and Data is present, replace the body with
//     {"encrypted": "<base64>"} (RSA when RSA keys are configured, AES
//     otherwise)
//  3. perform the exchange
//  4. on 401, clear the stored token and notify the unauthorized handler
//     and the event bus exactly once before returning the error
//  5. when Spec.Encrypt is set and the body is an {"encrypted": ...}
//     envelope, decrypt it
//  6. apply Spec.Transform and build the Envelope
//
// Every failure is a *reqerr.RequestError. A Client is safe for concurrent
// use; the token slot is only reached through AuthToken, SetAuthToken and
// RemoveAuthToken.
package client
