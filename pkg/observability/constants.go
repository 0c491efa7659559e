package observability

const (
	AttrAgentName       = "agent.name"
	AttrToolName        = "tool.name"
	AttrLLMModel        = "llm.model"
	AttrLLMTokensInput  = "llm.tokens.input"
	AttrLLMTokensOutput = "llm.tokens.output"
	AttrErrorType       = "error.type"
	AttrEventID         = "clausereview.event_id"

	SpanAgentRun      = "review.agent_run"
	SpanLLMCall       = "review.llm_call"
	SpanToolExecution = "agent.tool_execution"
	SpanMemorySearch  = "review.memory_search"

	DefaultServiceName  = "clausereview"
	DefaultMetricsPath  = "/metrics"
	DefaultOTLPEndpoint = "localhost:4317"
	DefaultSamplingRate = 1.0
)
