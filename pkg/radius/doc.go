// Package radius implements failover.Server on top of layeh.com/radius.
//
// Each Client talks to one RADIUS server using PAP (User-Password). The
// client never decides policy: it only classifies what the server did.
//
//	Access-Accept          -> failover.OutcomeAccepted (reply attributes attached)
//	Access-Reject          -> failover.OutcomeRejected
//	timeout / no transport -> failover.OutcomeUnreachable
//	anything else          -> failover.OutcomeProtocolError
package radius
