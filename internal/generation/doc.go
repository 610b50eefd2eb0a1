// Package generation defines the boundary between the application and the
// language model that produces mind-map content. Implementations live under
// internal/platform; callers depend only on the Generator interface and the
// plain data types declared here.
package generation
