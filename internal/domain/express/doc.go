// Package express contains the core domain types of the Platform9 Express
// install workflow.
//
// It defines ReleaseInfo (what the release endpoints advertise), Outcome (how
// an init or upgrade run ended) and the error kinds every layer wraps.
package express
