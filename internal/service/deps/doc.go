// Package deps resolves the dependency delta of a package.
//
// Dependency manifests (requirements.txt style files) are discovered in the
// tree listing of a revision and parsed into exact name==version pins. In
// snapshot mode every pin is part of the delta; in delta mode only pins that
// are new or whose version changed between the two revisions are. Anything
// that is not an exact pin (ranges, extras, markers, pip options) is dropped
// on purpose: every manifest is trusted to be a complete, frozen pin set.
package deps
