// Package detect provides the pluggable signal detectors invoked by the
// gate pipeline: schema and injection checks for input validation, intent
// classification against the policy taxonomy, and sensitivity detection for
// PII, PHI, and regulated data.
//
// Detectors are polymorphic over the Detector interface and selected by
// configuration; implementations range from regex scanners (this package)
// to external services wrapped by Bounded, which converts slow or failing
// detectors into reported unavailability instead of a hung pipeline.
package detect
