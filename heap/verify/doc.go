// Package verify provides debug validation of a finished collection.
//
// # Overview
//
// After the tracer drains its worklist and before from-space is released,
// memcheck builds re-walk every from-space allocation:
//
//   - Guards: the front guard and end guard of each allocation must still
//     hold the process guard sentinel. A mismatch is heap corruption and is
//     always fatal; the report names the type, address and allocation site.
//   - MissedPointers: every in-range word of a forwarded allocation must
//     point at a forwarded allocation. A hit is reported as a "possible
//     missed allocation"; it is logged by default and fatal in strict mode,
//     since an allocation tagged ScanNone may legitimately hold a stale
//     integer that happens to fall in range.
//   - WriteOnce: no two ranges written into to-space may overlap.
//
// # Quick Start
//
//	for _, err := range verify.Collection(fromSpace, tracker) {
//	    var verr *verify.ValidationError
//	    if errors.As(err, &verr) && verr.Fatal() {
//	        panic(err)
//	    }
//	    log.Warn("gc validation", "err", err)
//	}
package verify
