package model

// Caller roles carried in the access token.
const (
	RolePlatformAdmin = "platform_admin"
	RoleOrgAdmin      = "org_admin"
	RoleLearner       = "learner"
)
