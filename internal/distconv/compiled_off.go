//go:build nodistconv

package distconv

const compiled = false
