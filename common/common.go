package common

const AhubDebug = "AHUB_DEBUG"
const AhubName = "AHUB_NAME"

const ConfigDirName = ".ahub"
const ConfigFileName = "config.yml"
const ManifestFileName = "function.yml"
const ClientLogPath = "/tmp/ahub/logs"

const EndPointFunctions = "/hosted-functions"
const EndPointFunctionStart = "/start"
const EndPointFunctionUpload = "/upload"
const EndPointTools = "/tools"
const EndPointQueries = "/queries"
const EndPointDeploymentLogs = "/deployments/deployment-logs"
const EndPointDeploymentStatus = "/deployments/status"
const EndPointPodLogs = "/deployments/pod-logs"

const HeaderAuthorization = "Authorization"
const BearerPrefix = "Bearer "

// Milliseconds unless noted otherwise.
const DeployTimeOut = 300000
const CrashLogPollInterval = 150
const CrashLogMaxRetries = 50
const StreamReconnectMaxRetries = 3
const RequestTimeOut = 30000

const ViewerPort = "7080"
