package util

import (
	"strconv"
)

// ParseUint 解析路径里的数字 ID，非法输入返回错误而不是吞成 0
func ParseUint(s string) (uint, error) {
	id, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return 0, err
	}
	return uint(id), nil
}
