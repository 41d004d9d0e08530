// Package formats provides readers and writers for the waypoint generator's
// on-disk data: the TGA-derived adjacency grid produced by the flood sampler,
// and ground altitude tables (GAT) that can be converted into such a grid.
package formats
