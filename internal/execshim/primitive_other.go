//go:build !(ios && cgo)

package execshim

// Platform reports that processes can be spawned directly here and no
// primitive is needed.
func Platform() (Primitive, bool) {
	return nil, false
}
