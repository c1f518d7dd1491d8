// Package files finds measurement files and places the outputs derived from them.
//
// Discovery resolves directories, glob patterns and plain paths into a
// deterministic, name-sorted list of .mpt exports. Manager maps a source
// label to output paths under one output directory; Labels derives labels that
// stay unique when inputs from different directories share a name.
//
// Example usage:
//
//	discovery := files.NewDiscovery("")
//	inputs, err := discovery.ResolveInputs([]string{"data/run1", "data/run2/*_C0?.mpt"})
//
//	out := files.NewManager("results")
//	labels := files.Labels(inputs)
//	path := out.OutputPath(labels[0], "_capacitance.csv")
package files
