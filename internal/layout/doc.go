// Package layout derives the fixed pf9 directory tree from a single base
// directory. The Layout is built once at startup and passed by value to the
// services instead of being read from the environment on every use.
package layout
