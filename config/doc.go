// Package config 提供 uniconnect 的应用配置加载。
//
// 配置来源依次为默认值、YAML 文件和 UNICONNECT_ 前缀的环境变量。
// 连接器本身的配置（endpoint、auth、字段路径）由 connector.Config 描述，不在此包中。
package config
