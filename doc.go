// Package fireauth keeps an email/password session in a browser cookie and
// shows signed in users the task boards they share.
//
// Authentication is delegated to an IdentityProvider. FirebaseProvider talks
// to Firebase Authentication (Identity Toolkit); LocalProvider keeps bcrypt
// hashed accounts in an AccountStore and issues HS256 JWTs. Either way the
// provider's ID token is mirrored into a cookie named "token", and the page
// reads nothing else to decide whether a user is signed in.
//
// # Session controller
//
// SessionController is the page logic. It reads the cookie through a
// CookieJar, toggles the login box and sign-out control through a View and
// redirects through a Navigator:
//
//	c := fireauth.NewSessionController(provider, jar, view, nav)
//	state := c.Initialize()          // login box and sign-out visibility
//	f := c.Login(ctx, email, password)
//	result, _ := f.Wait(ctx)         // on success the cookie is set and nav goes to "/"
//
// Actions run asynchronously and resolve a Future once. A controller runs one
// action at a time; overlapping calls fail with ErrCodeOperationInFlight.
// Failures never touch the cookie or the view.
//
// # Web app
//
// App serves the login page and the boards with gorilla/mux. Each request
// gets its own controller bound to the request's cookies:
//
//	app := fireauth.NewApp(provider, boardStore)
//	http.ListenAndServe(":8080", app.Handler())
//
// Sign up, login and sign out are POSTs to /auth/signup, /auth/login and
// /auth/signout. Failures are flashed on the page through scs sessions.
//
// # Storage
//
// AccountStore and BoardStore have file system (stores), Cloud Datastore
// (stores/gae) and GORM (stores/gorm) implementations.
package fireauth
