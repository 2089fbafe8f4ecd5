/*
Package log wraps zerolog for the Kari Muscle agent's structured logging.

A single global Logger is initialized once via Init, from the --log-level
and --log-json flags cmd/kari-agent exposes. Everything downstream either
writes through Logger directly or through one of the With* helpers, which
return a child logger carrying one extra field so a whole request's worth
of log lines can be correlated:

  - WithComponent tags logs by subsystem at startup (e.g. "startup").
  - WithTraceID tags every line emitted while servicing one StreamDeployment
    call, matching the trace id the client also sees in its log stream.
  - WithConnID tags logs by the boundary connection the metrics interceptor
    observed, independent of which RPC method ran on it.
  - WithDomain tags logs by the domain name a deployment/SSL/teardown
    operation is acting on.

# Usage

	log.Init(log.Config{Level: log.InfoLevel, JSONOutput: true})

	log.Info("agent listening")

	traceLog := log.WithTraceID(intent.TraceID)
	traceLog.Warn().Err(err).Msg("deployment failed during build")
*/
package log
