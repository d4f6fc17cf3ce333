// Package provisioning implements the device side of friendship
// delegation: instead of deciding locally whether to accept a presence
// subscription request, the session asks a trusted provisioning server.
//
// A Manager is created once per transport session and wires three
// behaviors onto it:
//
//   - subscription requests are arbitrated (Approve / Deny / Defer)
//     through trusted registries, a verdict cache, and an isFriend
//     query to the provisioning server;
//   - authenticated unfriend notifications revoke a peer's presence
//     grant by emitting an unsubscribed presence;
//   - authenticated clearCache commands flush the verdict cache and
//     are acknowledged.
//
// The provisioning server is either configured explicitly or resolved
// once per session by discovering services that advertise the
// provisioning capability namespace. Every privileged inbound stanza is
// checked against that single address and dropped otherwise.
package provisioning
