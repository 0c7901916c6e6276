// Copyright (c) uniconnect Authors.
// Licensed under the MIT License.

/*
Package main 提供 uniconnect 命令行入口。

# 概述

cmd/uniconnect 把连接器、OpenAPI 配置生成器与批量扫描器包装为子命令。
应用配置由 config.Loader 加载（默认值 → YAML → UNICONNECT_ 环境变量），
.env 文件中的值作为环境变量的后备来源。

# 子命令

  - send       用连接器配置发送单条提示并打印回答
  - generate   从 OpenAPI 文档生成连接器配置
  - scan       批量发送提示文件并汇总判定结果
  - version    显示版本信息

凭据查找顺序：--credential 参数 → {PROVIDER}_API_KEY → API_KEY。
构建注入：Version、BuildTime、GitCommit 通过 ldflags 设置。
*/
package main
