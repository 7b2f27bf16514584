package eventType

const (
	ProcessStart = "process.start" // process startup; returning an error from a listener aborts the process
	ProcessExit  = "process.exit"  // process shutdown

	ConfigUpdated = "config.updated" // configuration replaced; fired once at initial load with zero-value "old"

	ServerInitializeStart = "server.routers.start" // route registration begins, listeners receive the gin engine
	ServerInitializeDone  = "server.routers.done"  // route registration finished

	PluginRegistered       = "plugin.registered"        // manifest accepted by the pipeline
	PluginRejected         = "plugin.rejected"          // manifest blocked by validation
	PluginIntegrityFailed  = "plugin.integrity.failed"  // trust score below threshold
	PluginPermissionDenied = "plugin.permission.denied" // capability gate refused an operation
	PluginNotification     = "plugin.notification"      // granted plugin surfaced a user-facing notice

	SandboxViolation   = "sandbox.violation"      // rate limit, payload or resource policy breach
	SandboxSlowOp      = "sandbox.operation.slow" // operation succeeded but exceeded the slow threshold
	SandboxOpCompleted = "sandbox.operation.done" // operation reached a terminal state

	AuditLogged = "audit.logged" // a security audit row was written

	SchedulerEveryMinute    = "scheduler.everyminute"
	SchedulerEvery5Minutes  = "scheduler.every5minutes"
	SchedulerEvery30Minutes = "scheduler.every30minutes"
	SchedulerEveryHour      = "scheduler.everyhour"
	SchedulerEveryDay       = "scheduler.everyday" // not fired on the day the server starts
)
