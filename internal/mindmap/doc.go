// Package mindmap converts generator output into node-link graphs.
//
// Generated outlines are placed radially around a fixed root position; each
// top-level branch gets an equal share of the circle and deeper levels fan out
// in a narrow arc around their parent. Expansions place new children in an
// arc around the node being expanded.
package mindmap
