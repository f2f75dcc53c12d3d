package node

import (
	"fmt"

	"please/internal/registry"
)

// RegistryAddressBook resolves a peer name to a dial address by looking up
// its advertised "addr" metadata key first (learned via Ping/Sync), falling
// back to treating the peer name itself as a host:port — the node-naming
// scheme this repo uses names nodes exactly as their listen address (e.g.
// "127.0.0.1:7001"), the Go-native analog of the source runtime's
// node-name-is-also-an-address convention. Static carries addresses for
// peers not yet known to the registry, e.g. configured referrals at startup.
type RegistryAddressBook struct {
	Registry *registry.Registry
	Static   map[string]string
}

// Address implements AddressBook. Pointer receiver so callers may build a
// *RegistryAddressBook before its Registry field is known (e.g. before the
// owning Node exists) and fill it in afterward.
func (b *RegistryAddressBook) Address(peer string) (string, error) {
	if meta, ok := b.Registry.GetPeer(peer); ok {
		if addr, ok := meta["addr"].(string); ok && addr != "" {
			return addr, nil
		}
	}
	if addr, ok := b.Static[peer]; ok {
		return addr, nil
	}
	if peer == "" {
		return "", fmt.Errorf("address book: empty peer name")
	}
	return peer, nil
}
