// Package lookup resolves Apple serial numbers to marketing model names.
//
// A lookup validates the raw serial number, derives the 3- or 4-character
// lookup key, sends one GET request to Apple's product endpoint with the key
// in the "cc" query parameter and reads the model name from the
// root/configCode element of the XML reply.
//
// # Lookup Keys
//
// Apple encodes the model in the tail of the serial number:
//   - 11-character serials: the last 3 characters
//   - 12-character serials: the last 4 characters
//   - 3- or 4-character input is taken to already be a key
//
// # Usage Example
//
//	client := lookup.NewClient()
//
//	res := client.Lookup(ctx, "C02ABCDEFGHI")
//	if !res.OK() {
//	    fmt.Println(res.Err) // e.g. "Invalid input! Please try again."
//	    return
//	}
//	fmt.Println(res.Model)
//
// The same call is available in callback form (LookupAsync) and as a
// single-value channel (Go). Cancellation and deadlines come from the
// context.
//
// # Errors
//
// Every failure is a *LookupError whose Error() is the message shown to
// users. The Type field distinguishes empty input, invalid length,
// transport failures, empty responses and responses without a configCode.
// Failures never panic and are never retried.
//
// # Thread Safety
//
// A configured Client is safe for concurrent use; lookups share no state.
package lookup
