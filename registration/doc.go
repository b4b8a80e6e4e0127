// Package registration discovers catalogued component types under a
// namespace and registers them with a host.
//
// A Pipeline is parametrised by the capability interface C its candidates must
// implement. For each identifier produced by the catalog scanner it:
//
//  1. loads the type (a load failure becomes a Failed outcome),
//  2. silently drops types whose constructor result does not implement C,
//     and, when RequireMarker is set, types without a marker,
//  3. skips development-only types unless DevMode is on (SkippedNotDev),
//  4. builds one instance, passing the registration context to one-parameter
//     constructors (a build failure becomes a Failed outcome),
//  5. hands the instance to a Sink, which reports Registered, SkippedNoTarget
//     or Failed.
//
// Two sinks are provided. CommandSink binds instances to pre-declared slots
// named by the marker key and never creates slots; ListenerSink registers
// every instance unconditionally.
//
// Every outcome is logged once and collected into a Report. Only a scan
// failure aborts a pass; it is classified fatal with the semstreams error
// helpers so callers can decide whether to stop startup:
//
//	report, err := pipeline.Register(ctx, plugin, "commands")
//	if err != nil {
//		return fmt.Errorf("register commands: %w", err)
//	}
//	if report.Count(registration.Failed) > 0 {
//		logger.Warn("Some commands failed to register", "error", report.Err())
//	}
package registration
