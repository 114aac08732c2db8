// Package layout binds a compiled conversion pattern to the output concerns
// around it: escape sequences in the configured text, the optional regex
// replacement, appending errors the pattern would otherwise drop, and
// header/footer text with ${name} property substitution.
//
// ZerologWriter lets the process's own zerolog output go through a Layout.
package layout
