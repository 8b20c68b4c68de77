//go:build !wasm
// +build !wasm

// Package gae provides Google Cloud Datastore implementations of the fireauth
// AccountStore and BoardStore interfaces. Stores support Datastore namespaces
// so several deployments can share one project.
//
// # Datastore Kinds
//
//   - Account: local email/password accounts, keyed by lowercased email
//   - Member: a user's board memberships, keyed by lowercased email
//   - Board: task boards, keyed by a generated id
//   - Task: board tasks, keyed by a generated id
//
// # Usage
//
//	client, _ := datastore.NewClient(ctx, projectID)
//	boards := gae.NewBoardStore(client, "")  // default namespace
//	accounts := gae.NewAccountStore(client, "tenant-123")
package gae
