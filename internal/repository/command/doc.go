// Package command runs external tools (git, pip) with a timeout and maps
// their failures onto the release error taxonomy.
package command
