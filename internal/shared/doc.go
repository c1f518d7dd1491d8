// Package shared holds code used across packages that belongs to no single
// processing stage.
//
// The testutil subpackage provides:
//
//   - MPTBuilder, which renders synthetic EC-Lab ASCII exports with a
//     computed header line count
//   - BufferedSlogHandler, which captures log records for assertions
//
// Example usage:
//
//	func TestSomething(t *testing.T) {
//	    path := testutil.NewChargeDischargeBuilder().WriteFile(t, t.TempDir(), "cell.mpt")
//	    handler := testutil.CaptureDefaultLogger(t)
//	    ...
//	}
package shared
