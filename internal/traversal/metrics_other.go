//go:build !unix

package traversal

func processCPUSeconds() float64 { return -1 }

func procStatusKB(string) int64 { return -1 }
