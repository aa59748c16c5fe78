// Package testutil contains helper builders and fakes used across tests to
// reduce boilerplate when constructing turns, conversations and responders.
// They are not intended for production usage.
package testutil
