package provider

// Exports for testing internal helpers from the black-box test package.
var (
	Describe    = describe
	IsChatModel = isChatModel
)
