// Package sanitizer normalizes free-text input before it is validated and
// stored.
//
// All functions are idempotent: applying them twice gives the same result
// as applying them once. Invalid input never produces an error, only an
// empty or shortened string.
package sanitizer
