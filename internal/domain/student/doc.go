// Package student contains the point ledger of a single student.
//
// The package defines:
//
//   - Entities: Student, PointHistory, RedeemedReward
//   - The Level tier and its classifier (Classify)
//   - The Ledger, which applies point deltas and reports level-ups
//
// # Principles
//
//  1. No external dependencies, only the Go standard library
//  2. Value semantics: ledger operations return an updated copy and never
//     touch the student they were given
//  3. Level is never stored independently; it is always Classify(TotalPoints)
//
// # Example
//
//	ledger := student.NewLedger(stamper)
//	updated, up := ledger.ApplyDelta(s, 5, "answered at the board")
//	if up != nil {
//	    fmt.Printf("%s reached %s\n", up.StudentName, up.To.Name())
//	}
package student
