// Package discovery locates hubs on the local network over mDNS.
//
// Hubs that advertise do so as "_lifesmart._udp" instances in the
// local domain. Discovery is strictly advisory, a convenience for
// prefilling CLI configuration: the protocol itself addresses hubs by
// IP, and hubs that stay silent on mDNS work exactly the same.
package discovery
