package tui

import (
	"github.com/cakturk/go-netstat/netstat"
)

// activeConns counts established TCP connections per remote address. Errors
// (typically missing /proc access) just leave the counts empty.
func activeConns() map[string]int {
	conns := make(map[string]int)
	established := func(s *netstat.SockTabEntry) bool {
		return s.State == netstat.Established
	}
	for _, socks := range []func(netstat.AcceptFn) ([]netstat.SockTabEntry, error){
		netstat.TCPSocks,
		netstat.TCP6Socks,
	} {
		tabs, err := socks(established)
		if err != nil {
			continue
		}
		for _, tab := range tabs {
			conns[tab.RemoteAddr.IP.String()]++
		}
	}
	return conns
}
