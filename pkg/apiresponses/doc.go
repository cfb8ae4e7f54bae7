// Package apiresponses standardizes terminal JSON responses for the
// security pipeline's failure taxonomy.
package apiresponses
