package errors

import "errors"

// ErrConcurrentUpdate 条件更新未命中：记录已被并发操作抢先修改
var ErrConcurrentUpdate = errors.New("数据已被其他操作修改，请刷新后重试")
