package common

type FunctionInfo struct {
	Id        string `json:"id"`
	Name      string `json:"name"`
	Runtime   string `json:"runtime"`
	Status    string `json:"status"`
	CreatedAt int64  `json:"createdAt"`
	UpdatedAt int64  `json:"updatedAt"`
}

type ToolInfo struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	FunctionId  string `json:"functionId"`
}

type DeploymentStatusInfo struct {
	FunctionId string `json:"functionId"`
	PodName    string `json:"podName"`
	Phase      string `json:"phase"`
}

type PodLogsInfo struct {
	PodName string `json:"podName"`
	Stdout  string `json:"stdout"`
	Stderr  string `json:"stderr"`
}

type QueryResultInfo struct {
	QueryId string `json:"queryId"`
	AgentId string `json:"agentId"`
	Answer  string `json:"answer"`
	Status  string `json:"status"`
}
