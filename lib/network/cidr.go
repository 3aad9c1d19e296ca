// Package network validates CIDR blocks and splits them into subnets for
// spreading resources across availability zones.
package network

import (
	"fmt"
	"net/netip"
)

// CIDRError reports a block that fails validation.
type CIDRError struct {
	Block  string
	Reason string
}

func (e *CIDRError) Error() string {
	return fmt.Sprintf("invalid cidr block %q: %s", e.Block, e.Reason)
}

// ValidateCIDR parses block and checks its prefix length against the
// permitted range. Only IPv4 blocks are accepted; the block must be the
// network address (10.0.1.0/24, not 10.0.1.5/24).
func ValidateCIDR(block string, minPrefix, maxPrefix int) (netip.Prefix, error) {
	prefix, err := netip.ParsePrefix(block)
	if err != nil {
		return netip.Prefix{}, &CIDRError{Block: block, Reason: err.Error()}
	}
	if !prefix.Addr().Is4() {
		return netip.Prefix{}, &CIDRError{Block: block, Reason: "only ipv4 blocks are supported"}
	}
	if prefix.Masked() != prefix {
		return netip.Prefix{}, &CIDRError{Block: block, Reason: "not a network address"}
	}
	if prefix.Bits() < minPrefix || prefix.Bits() > maxPrefix {
		return netip.Prefix{}, &CIDRError{
			Block:  block,
			Reason: fmt.Sprintf("prefix length /%d outside permitted range /%d../%d", prefix.Bits(), minPrefix, maxPrefix),
		}
	}
	return prefix, nil
}

// SubnetCIDRs splits base into count consecutive subnets of newPrefix bits,
// starting at the base network address. It errors when newPrefix is not
// longer than the base prefix or when count subnets do not fit.
func SubnetCIDRs(base netip.Prefix, newPrefix, count int) ([]string, error) {
	if !base.Addr().Is4() {
		return nil, &CIDRError{Block: base.String(), Reason: "only ipv4 blocks are supported"}
	}
	if newPrefix <= base.Bits() || newPrefix > 32 {
		return nil, &CIDRError{
			Block:  base.String(),
			Reason: fmt.Sprintf("subnet prefix /%d must be longer than /%d and at most /32", newPrefix, base.Bits()),
		}
	}
	capacity := 1 << (newPrefix - base.Bits())
	if count < 1 || count > capacity {
		return nil, &CIDRError{
			Block:  base.String(),
			Reason: fmt.Sprintf("cannot carve %d /%d subnets, capacity is %d", count, newPrefix, capacity),
		}
	}

	stride := uint32(1) << (32 - newPrefix)
	start := addrToUint32(base.Masked().Addr())
	subnets := make([]string, 0, count)
	for i := 0; i < count; i++ {
		addr := uint32ToAddr(start + uint32(i)*stride)
		subnets = append(subnets, netip.PrefixFrom(addr, newPrefix).String())
	}
	return subnets, nil
}

func addrToUint32(a netip.Addr) uint32 {
	b := a.As4()
	return uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3])
}

func uint32ToAddr(v uint32) netip.Addr {
	return netip.AddrFrom4([4]byte{byte(v >> 24), byte(v >> 16), byte(v >> 8), byte(v)})
}
