// Package clientcli is a client library for rookery resource servers.
//
// It uploads, downloads, deletes, copies and moves resources, and lists
// directories by reading their JSON metadata documents. Profiles stored in
// a YAML file select between several servers.
//
// # Basic Usage
//
//	client, err := clientcli.New(&clientcli.Config{
//		Endpoint: "http://localhost:5708",
//		BasePath: "/resource",
//	})
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	results, err := client.Upload(ctx, clientcli.UploadOptions{
//		LocalPath:  "./styles/roads.sld",
//		RemotePath: "styles/roads.sld",
//	})
//
//	_, err = client.Move(ctx, "styles/roads.sld", "archive/roads.sld")
//
// # Profile Configuration
//
//	configFile, err := clientcli.LoadConfigFile(clientcli.DefaultConfigPath())
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	profile, err := configFile.GetProfile("production")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	client, err := clientcli.New(clientcli.ConfigFromProfile(profile))
//
// # Output Formatting
//
//	formatter := clientcli.NewFormatter(jsonOutput, quiet)
//	formatter.FormatUpload(os.Stdout, results)
package clientcli
