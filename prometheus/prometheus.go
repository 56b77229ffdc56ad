package prometheus

// Namespace is the common prometheus metric namespace for all gocs subsystems.
const Namespace = "gocs"
