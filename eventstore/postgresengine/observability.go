package postgresengine

const (
	metricPushDuration   = "remotestore_push_duration_seconds"
	metricPullDuration   = "remotestore_pull_duration_seconds"
	metricEventsAccepted = "remotestore_events_accepted_total"
	metricDatabaseErrors = "remotestore_database_errors_total"

	spanNamePush = "remotestore.push"
	spanNamePull = "remotestore.pull"

	operationPush    = "push"
	operationPull    = "pull"
	operationMigrate = "migrate"

	errorTypeBuildQuery = "build_query"
	errorTypeDatabase   = "database"
	errorTypeScan       = "scan"

	logMsgSQLExecuted = "executed sql for: "
	logMsgOperation   = "remote store operation: "
	logMsgFailed      = "remote store operation failed"
	logAttrQuery      = "query"
	logAttrNamespace  = "namespace"
	logAttrAccepted   = "accepted"
	logAttrDuplicates = "duplicates"
)
