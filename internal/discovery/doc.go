// Package discovery finds modelfinder servers on the local network over
// multicast DNS.
//
// Servers started with --advertise register the "_modelfinder._tcp" service
// with TXT records naming the lookup path and server version. Clients
// browse for that service and query the first server that answers.
//
// # Usage Example
//
//	servers, err := discovery.Scan(ctx, 3*time.Second)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	for _, s := range servers {
//	    fmt.Println(s.Instance, s.LookupURL())
//	}
//
// # Network Requirements
//
//   - Requires multicast support on the network interface
//   - Servers must be on the same local network segment
//   - Firewall must allow mDNS (UDP port 5353)
package discovery
