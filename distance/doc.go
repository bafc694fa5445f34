// Package distance implements the three distance spaces of the index.
//
//   - Euclidean: squared L2 distance
//   - InnerProduct: 1 - dot(a, b)
//   - Cosine: 1 - dot(a, b) on L2-normalized vectors
//
// The space is chosen once per index; [Provider] resolves it to a plain
// function so the search loop never switches on the space.
//
//	fn, _ := distance.Provider(distance.Cosine)
//	d := fn(distance.Normalize(a), distance.Normalize(b))
package distance
