// Package managed provides holders for values with an explicitly controlled
// lifetime. Global keeps a lazily constructed value alive for as long as any
// reference to it exists, which avoids depending on initialization order of
// package level variables.
package managed
