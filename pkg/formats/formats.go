// Package formats provides readers and writers for craterfield asset files.
package formats

// Note: CRM (collision map) is implemented in crm.go
