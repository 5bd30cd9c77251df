// Package instagram is a small client for the saved-collection feed of
// Instagram's private web API.
//
// Requests carry the session cookies and the headers the web client sends
// (x-ig-app-id, x-csrftoken and friends). Failures come back as
// *errors.Error with a type derived from the HTTP status.
//
//	creds, err := auth.ParseCookieHeader(os.Getenv("IG_COOKIES"))
//	client := instagram.NewClient(creds, instagram.Options{
//	    Limiter: ratelimit.NewPerMinute(30),
//	}, log)
//	page, err := client.FetchCollectionPage(ctx, "17890000000000000", "")
package instagram
