package analysis

import "regexp"

// CI error patterns compiled once at package init. Each category recognizer
// scans the full log exactly once with its own pattern.
var (
	// "error in src/app.tsx:45:12" or "src/app.tsx:45:12 - error TS2322"
	reTypeScript = regexp.MustCompile(`(?i)error\s+in\s+([^\s]+\.tsx?):(\d+):(\d+)|([^\s]+\.tsx?):(\d+):(\d+)\s+-\s+error\s+TS\d+`)

	// "FAIL src/app.test.tsx" or "test failed: <details>"
	reTestFailure = regexp.MustCompile(`(?i)FAIL\s+([^\s]+\.test\.[jt]sx?)|test\s+failed[:\s]*([^\n]*)`)

	// ESLint file header followed by "line:col  severity" or "lint error: <details>"
	reLintError = regexp.MustCompile(`(?i)([^\s]+\.[jt]sx?)\s*\n\s*(\d+):(\d+)\s+(error|warning)|lint\s+error[:\s]*([^\n]*)`)

	// "Build failed: <reason>", "Module not found", "Cannot resolve"
	reBuildFailure = regexp.MustCompile(`(?i)build\s+failed[:\s]*([^\n]*)|module not found|cannot resolve`)

	// Jest coverage threshold violations
	reCoverage = regexp.MustCompile(`(?i)coverage threshold.*not met|statements.*threshold`)
)

// Vercel deployment error patterns.
var (
	reVercelBuildTimeout     = regexp.MustCompile(`(?i)build timed out after \d+ minutes`)
	reVercelMemoryLimit      = regexp.MustCompile(`(?i)javascript heap out of memory|process ran out of memory`)
	reVercelEnvVarMissing    = regexp.MustCompile(`(?i)environment variable (.+) is required but not set`)
	reVercelDependencyError  = regexp.MustCompile(`(?i)npm err! code eresolve`)
	reVercelFunctionSize     = regexp.MustCompile(`(?i)serverless function .+ exceeds the (?:maximum )?size limit|serverless function .+ exceeds the limit`)
	reVercelStaticGeneration = regexp.MustCompile(`(?i)error occurred prerendering page "([^"]+)"`)
	reVercelEdgeRuntime      = regexp.MustCompile(`(?i)edge runtime does not support`)
	reVercelMissingModule    = regexp.MustCompile(`(?i)cannot resolve module '([^']+)' from '([^']+)'`)
	reVercelDatabase         = regexp.MustCompile(`(?i)can't reach database server|prisma schema validation failed`)

	reVercelEdgeUsedIn    = regexp.MustCompile(`Used in: ([^\s\n]+)`)
	reVercelEnvVarName    = regexp.MustCompile(`(?i)environment variable (\w+)`)
	reVercelGenericError  = regexp.MustCompile(`(?i)Error: (.+)`)
	reVercelBuildFailedTo = regexp.MustCompile(`(?i)Build failed for (.+)`)
)
