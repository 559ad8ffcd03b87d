// Package models holds the GORM rows behind the ledger repositories.
//
// Domain types in internal/domain never carry gorm tags. Each row type here
// owns its table name, indexes and the ToDomain/FromDomain conversion, and
// the repositories in the parent package are the only callers.
package models
