package version

// Version is the tool version compared against a catalog's $minVersion.
const Version = "1.2.0"

const Name = "usercheck"
