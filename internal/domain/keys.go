package domain

// KeyPrefix namespaces every key this service writes to the shared store.
// Overridden from config at startup.
var KeyPrefix = "tablematch:"
