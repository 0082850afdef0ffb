// Package consigne is the deposit-return application layer over the store.
//
// A deposit records products handed back by a receiver (the customer) to a
// provider (the cashier). Each scanned product becomes a deposit line; lines
// can be canceled until the deposit is closed and its voucher barcode set.
// Every operation runs in its own session and commits before returning.
//
// The schema lives in schema.sql and is created by Bootstrap on an empty
// database file. There are no migrations.
package consigne
