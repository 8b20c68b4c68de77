//go:build !wasm
// +build !wasm

// Package gorm provides GORM-based implementations of the fireauth
// AccountStore and BoardStore interfaces. It supports any database that GORM
// supports; cmd/fireauth wires it to PostgreSQL.
//
// # Database Schema
//
// The package auto-migrates the following tables:
//   - accounts: local email/password accounts
//   - members: one row per user who has opened the boards page
//   - memberships: which member belongs to which board
//   - boards: task boards
//   - tasks: board tasks, with assignees stored as JSON
//
// # Usage
//
//	db, _ := gorm.Open(postgres.Open(dsn), &gorm.Config{})
//	_ = gormstore.AutoMigrate(db)
//	boards := gormstore.NewBoardStore(db)
//	accounts := gormstore.NewAccountStore(db)
package gorm
